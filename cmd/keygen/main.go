// keygen produces the RSA key pair a participant needs to join the payment
// network: the private half stays with the process, the public half is
// registered in the central directory.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"paygate/internal/envelope"
)

func main() {
	var (
		dir    = flag.String("out", ".", "directory to write the key pair into")
		prefix = flag.String("prefix", "paygate", "file name prefix")
		bits   = flag.Int("bits", 2048, "RSA key size in bits")
	)
	flag.Parse()

	if *bits < 2048 {
		fmt.Fprintln(os.Stderr, "key size below 2048 bits is not accepted")
		os.Exit(1)
	}

	key, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	privPEM, err := envelope.EncodePrivateKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode private key: %v\n", err)
		os.Exit(1)
	}
	pubPEM, err := envelope.EncodePublicKey(&key.PublicKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode public key: %v\n", err)
		os.Exit(1)
	}

	privPath := filepath.Join(*dir, *prefix+"_private.pem")
	pubPath := filepath.Join(*dir, *prefix+"_public.pem")

	if err := os.WriteFile(privPath, privPEM, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", privPath, err)
		os.Exit(1)
	}
	if err := os.WriteFile(pubPath, pubPEM, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", pubPath, err)
		os.Exit(1)
	}

	fmt.Printf("wrote %s and %s\n", privPath, pubPath)
}
