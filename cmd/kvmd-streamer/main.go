// @title kvmd streamer API
// @version 1.0
// @description Snapshot, OCR and streaming mode control for the KVM video streamer
// @BasePath /api
package main

import (
	"fmt"
	"os"

	"kvmd-streamer-go/internal/cli"
)

func main() {
	if err := cli.NewRootCmd(nil, nil).Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "kvmd-streamer failed: %v\n", err)
		os.Exit(1)
	}
}
