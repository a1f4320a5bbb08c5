// main.go

package main

import (
	"github.com/CodeMonkeyCybersecurity/cephkeys/cmd"
	"github.com/CodeMonkeyCybersecurity/cephkeys/pkg/logger"
)

func main() {
	logger.InitializeWithFallback()
	cmd.Execute()
}
