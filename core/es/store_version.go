package es

import (
	"encoding/json"
	"fmt"
)

// KeyStoreVersion is the storage layout generation. The numeric order of the
// constants is the compatibility contract: never reorder or insert.
type KeyStoreVersion uint8

const (
	Pre0_6 KeyStoreVersion = iota
	V0_6
	V0_7
	V0_8
)

// CurrentKeyStoreVersion is written to new stores.
const CurrentKeyStoreVersion = V0_8

var keyStoreVersionNames = []string{"Pre0_6", "V0_6", "V0_7", "V0_8"}

func (v KeyStoreVersion) String() string {
	if int(v) < len(keyStoreVersionNames) {
		return keyStoreVersionNames[v]
	}
	return fmt.Sprintf("KeyStoreVersion(%d)", uint8(v))
}

func ParseKeyStoreVersion(s string) (KeyStoreVersion, error) {
	for i, name := range keyStoreVersionNames {
		if name == s {
			return KeyStoreVersion(i), nil
		}
	}
	return 0, fmt.Errorf("unknown key store version %q", s)
}

// NeedsMigration reports whether v is older than the current layout.
func (v KeyStoreVersion) NeedsMigration() bool { return v < CurrentKeyStoreVersion }

func (v KeyStoreVersion) MarshalJSON() ([]byte, error) {
	if int(v) >= len(keyStoreVersionNames) {
		return nil, fmt.Errorf("unknown key store version %d", uint8(v))
	}
	return json.Marshal(v.String())
}

func (v *KeyStoreVersion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKeyStoreVersion(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
