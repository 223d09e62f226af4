// Command lmctl は学習器の学習、保存、推論を行うコマンドラインツールです。
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
