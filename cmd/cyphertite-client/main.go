// Command cyphertite-client is the cobra-based CLI entrypoint, grounded on
// kgiusti-go-fdo-server's cmd/root.go (cobra.Command tree + viper-backed
// persistent flags) generalized from FDO server subcommands to
// archive/extract/cull/serve.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
