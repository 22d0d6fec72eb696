// Package main 离线精修校验工具
package main

import (
	"os"

	"ad-studio-api/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
