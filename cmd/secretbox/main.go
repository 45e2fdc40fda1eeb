// Command secretbox seals or opens the intake shared secret so it can be
// stored as intake.secret_key_encrypted.
//
//	PETANCO_INTAKE_APP_KEY=... secretbox -seal my-shared-secret
//	PETANCO_INTAKE_APP_KEY=... secretbox -open petanco.secret.v1:...
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"petanco-intake-api/internal/security"
)

func main() {
	os.Exit(run(os.Args[1:], os.Getenv("PETANCO_INTAKE_APP_KEY"), os.Stdout, os.Stderr))
}

func run(args []string, envKey string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("secretbox", flag.ContinueOnError)
	fs.SetOutput(stderr)
	appKey := fs.String("key", envKey, "Application key (defaults to $PETANCO_INTAKE_APP_KEY)")
	seal := fs.String("seal", "", "Plaintext secret to encrypt")
	open := fs.String("open", "", "Envelope to decrypt")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if (*seal == "") == (*open == "") {
		fmt.Fprintln(stderr, "exactly one of -seal or -open is required")
		return 2
	}

	box, err := security.NewSecretBox(*appKey)
	if err != nil {
		fmt.Fprintf(stderr, "secretbox: %v\n", err)
		return 1
	}

	var out string
	if *seal != "" {
		out, err = box.Seal(*seal)
	} else {
		out, err = box.Open(*open)
	}
	if err != nil {
		fmt.Fprintf(stderr, "secretbox: %v\n", err)
		return 1
	}

	fmt.Fprintln(stdout, out)
	return 0
}
