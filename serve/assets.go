package serve

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path"

	assetfs "github.com/elazarl/go-bindata-assetfs"
)

//go:embed web
var web embed.FS

// Assets returns a handler for the embedded web frontend.
func Assets() http.Handler {
	return http.FileServer(&assetfs.AssetFS{
		Asset: func(name string) ([]byte, error) {
			return web.ReadFile(name)
		},
		AssetDir: func(name string) ([]string, error) {
			entries, err := web.ReadDir(name)
			if err != nil {
				return nil, err
			}
			names := make([]string, len(entries))
			for i, e := range entries {
				names[i] = e.Name()
			}
			return names, nil
		},
		AssetInfo: func(name string) (os.FileInfo, error) {
			return fs.Stat(web, path.Clean(name))
		},
		Prefix: "web",
	})
}
