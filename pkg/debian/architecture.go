package debian

import "fmt"

// Architecture identifies a Debian machine architecture.
type Architecture string

const (
	ArchAmd64    Architecture = "amd64"
	ArchArm64    Architecture = "arm64"
	ArchArmel    Architecture = "armel"
	ArchArmhf    Architecture = "armhf"
	ArchI386     Architecture = "i386"
	ArchMips64el Architecture = "mips64el"
	ArchPpc64el  Architecture = "ppc64el"
	ArchRiscv64  Architecture = "riscv64"
	ArchS390x    Architecture = "s390x"

	// ArchAll marks architecture-independent binary packages.
	ArchAll Architecture = "all"
	// ArchSource marks source entries rather than binaries.
	ArchSource Architecture = "source"
)

var knownArchitectures = map[Architecture]struct{}{
	ArchAmd64:    {},
	ArchArm64:    {},
	ArchArmel:    {},
	ArchArmhf:    {},
	ArchI386:     {},
	ArchMips64el: {},
	ArchPpc64el:  {},
	ArchRiscv64:  {},
	ArchS390x:    {},
	ArchAll:      {},
	ArchSource:   {},
}

// ParseArchitecture validates a user-supplied architecture name. Index
// contents are not filtered through this; repositories may declare
// architectures this tool has never heard of.
func ParseArchitecture(s string) (Architecture, error) {
	a := Architecture(s)
	if _, ok := knownArchitectures[a]; !ok {
		return "", fmt.Errorf("unknown architecture %q", s)
	}
	return a, nil
}

func (a Architecture) String() string { return string(a) }
