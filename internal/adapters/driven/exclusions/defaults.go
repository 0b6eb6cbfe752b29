package exclusions

import _ "embed"

// defaultList ships with the binary so a fresh install blocks the
// hashes the maintainers have already flagged.
//
//go:embed known_bad.txt
var defaultList []byte
