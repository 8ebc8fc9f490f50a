// Command token issues a signed admin token for the cache administration routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Yo-Self/yo-self.github.io-sub001/config"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/utils"
)

func main() {
	subject := flag.String("subject", "ops", "token subject")
	role := flag.String("role", utils.RoleAdmin, "token role")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg := config.LoadConfig()

	tok, exp, err := utils.GenerateToken([]byte(cfg.Auth.JWTSecret), *subject, *role, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Fprintf(os.Stderr, "expires at %s\n", exp.Format(time.RFC3339))
	fmt.Println(tok)
}
