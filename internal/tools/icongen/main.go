// Command icongen writes the packaging icons consumed by wails build.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"deskshell/internal/appicon"
)

func main() {
	outDir := flag.String("out", "build", "wails build directory")
	flag.Parse()

	if err := run(*outDir); err != nil {
		fmt.Fprintln(os.Stderr, "icongen:", err)
		os.Exit(1)
	}
}

func run(outDir string) error {
	png, err := appicon.AppPNG(1024)
	if err != nil {
		return err
	}
	ico, err := appicon.ICO(appicon.RenderApp(256), appicon.AppICOSizes)
	if err != nil {
		return err
	}
	tray, err := appicon.TrayICO()
	if err != nil {
		return err
	}

	files := map[string][]byte{
		filepath.Join(outDir, "appicon.png"):         png,
		filepath.Join(outDir, "windows", "icon.ico"): ico,
		filepath.Join(outDir, "windows", "tray.ico"): tray,
	}
	for path, data := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s (%d bytes)\n", path, len(data))
	}
	return nil
}
