package resources

import "embed"

//go:embed migrations ladder.yml
var FS embed.FS
