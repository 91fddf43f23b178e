// token 为本地调试签发 Bearer token：
//
//	JWT_SECRET=... go run ./cmd/token -user 1
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"startuppush/internal/auth"
)

func main() {
	userID := flag.Uint("user", 0, "user id to embed in the token")
	flag.Parse()

	_ = godotenv.Load()
	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "usage: token -user <id>")
		os.Exit(2)
	}

	signer, err := auth.NewSigner(os.Getenv("JWT_SECRET"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	token, err := signer.GenerateJWT(*userID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
