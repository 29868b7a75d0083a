package postgres

// Active keys carry archive = ''. Archived keys keep their scope and get the archive kind
// (archived, surplus, corrupt) in the archive column.

const (
	querySchema = `
		CREATE TABLE IF NOT EXISTS castore_kv (
			archive    TEXT        NOT NULL DEFAULT '',
			scope      TEXT        NOT NULL DEFAULT '',
			name       TEXT        NOT NULL,
			data       BYTEA       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (archive, scope, name)
		)
	`

	queryGet = `
		SELECT data FROM castore_kv
		WHERE archive = $1 AND scope = $2 AND name = $3
	`

	queryGetForUpdate = `
		SELECT data FROM castore_kv
		WHERE archive = '' AND scope = $1 AND name = $2
		FOR UPDATE
	`

	queryPut = `
		INSERT INTO castore_kv (archive, scope, name, data, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (archive, scope, name) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`

	// queryPutNew affects no rows when the key is already present.
	queryPutNew = `
		INSERT INTO castore_kv (archive, scope, name, data, updated_at)
		VALUES ('', $1, $2, $3, now())
		ON CONFLICT (archive, scope, name) DO NOTHING
	`

	queryDelete = `
		DELETE FROM castore_kv
		WHERE archive = '' AND scope = $1 AND name = $2
	`

	queryHasScope = `
		SELECT EXISTS (
			SELECT 1 FROM castore_kv WHERE archive = '' AND scope = $1
		)
	`

	queryKeys = `
		SELECT name FROM castore_kv
		WHERE archive = '' AND scope = $1 AND name LIKE $2 ESCAPE '\'
		ORDER BY name ASC
	`

	queryScopes = `
		SELECT DISTINCT scope FROM castore_kv
		WHERE archive = '' AND scope <> ''
		ORDER BY scope ASC
	`
)
