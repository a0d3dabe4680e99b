// Generate signing secrets for the auth service.
// The service needs three distinct secrets (access, refresh, session),
// so by default three are printed, one per line.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
)

const (
	SecretBytesLen = 32

	defaultSecretCount = 3
)

func main() {
	count := defaultSecretCount
	if len(os.Args) > 1 {
		parsed, err := strconv.Atoi(os.Args[1])
		if err != nil || parsed < 1 {
			fmt.Printf("usage: gensecret [count]\n")
			os.Exit(1)
		}
		count = parsed
	}

	for range count {
		b := make([]byte, SecretBytesLen)

		_, err := rand.Read(b)
		if err != nil {
			fmt.Printf("error while generating secret: %v", err)
			os.Exit(1)
		}

		fmt.Println(hex.EncodeToString(b))
	}
}
