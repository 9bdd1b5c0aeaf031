package appfs

import "embed"

//go:embed all:migrations all:assets
var FS embed.FS
