// Command hashsecret prints the bcrypt hash to use as AUTH_BRIDGE_SECRET_HASH.
// The secret is read from the first line of stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/weaver-helpdesk/internal/auth"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost")
	flag.Parse()

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		log.Fatalf("read secret: %v", err)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		log.Fatal("secret must not be empty")
	}

	hash, err := auth.HashSecret(secret, *cost)
	if err != nil {
		log.Fatalf("hash secret: %v", err)
	}
	fmt.Println(hash)
}
