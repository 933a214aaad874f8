// Package types provides typed constants shared across the provisioning
// pipeline.
//
// Artifact kinds are closed enumerations: every place that needs to know the
// file name of an artifact or its backup goes through the methods here rather
// than spelling the name out.
package types

import (
	"fmt"
	"strings"
)

// BackupSuffix is appended to an artifact's file name to form its backup.
const BackupSuffix = ".bk"

// SettingsDirName is the generated settings sub-tree deployed next to the
// artifacts.
const SettingsDirName = "steam_settings"

// Kind identifies one of the intercepted Steam API libraries.
type Kind string

const (
	// KindVariant64 is the 64-bit library, steam_api64.dll.
	KindVariant64 Kind = "variant64"
	// KindVariant32 is the 32-bit library, steam_api.dll.
	KindVariant32 Kind = "variant32"
)

// AllKinds returns every artifact kind in the order they are processed.
func AllKinds() []Kind {
	return []Kind{KindVariant64, KindVariant32}
}

// Validate checks if the Kind is a valid value.
func (k Kind) Validate() error {
	switch k {
	case KindVariant64, KindVariant32:
		return nil
	case "":
		return fmt.Errorf("artifact kind is required")
	default:
		return fmt.Errorf("invalid artifact kind '%s' (must be variant64 or variant32)", k)
	}
}

// String returns the string representation of the Kind.
func (k Kind) String() string {
	return string(k)
}

// FileName returns the artifact's file name, both inside a game tree and
// inside the installed package tree.
func (k Kind) FileName() string {
	switch k {
	case KindVariant64:
		return "steam_api64.dll"
	case KindVariant32:
		return "steam_api.dll"
	default:
		return ""
	}
}

// BackupName returns the file name of the artifact's backup.
func (k Kind) BackupName() string {
	return k.FileName() + BackupSuffix
}

// ParseKind parses a string into a Kind.
// Returns an error if the string is not a valid kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if err := k.Validate(); err != nil {
		return "", err
	}
	return k, nil
}

// KindForFile returns the kind whose artifact file is named name. The match
// is exact so that the guard later finds the same file by joining the name.
func KindForFile(name string) (Kind, bool) {
	for _, k := range AllKinds() {
		if k.FileName() == name {
			return k, true
		}
	}
	return "", false
}
