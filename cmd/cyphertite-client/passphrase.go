package main

import "os"

// passphraseEnvVar names the environment variable the secrets passphrase is
// read from. A real terminal-prompt flow needs golang.org/x/term, which
// isn't part of this module's dependency set; until that's added, the
// passphrase must be supplied out of band (env var, wrapped by a secrets
// manager invocation, etc.) rather than typed interactively.
const passphraseEnvVar = "CYPHERTITE_PASSPHRASE"

func passphraseFromEnv() string {
	return os.Getenv(passphraseEnvVar)
}
