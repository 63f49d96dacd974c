// Command vericvctl prints operator credentials for a VeriCV deployment.
//
//	vericvctl hash-password            reads a password on stdin, prints ADMIN_PASSWORD_HASH
//	vericvctl issue-token -user u1     prints a bearer token signed with AUTH_SECRET
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	httpserver "github.com/fairyhunter13/vericv/internal/adapter/httpserver"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, "vericvctl:", err)
		os.Exit(2)
	}
}

func run(args []string, in io.Reader, out io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		return errors.New("usage: vericvctl hash-password | issue-token -user ID [-ttl 24h]")
	}
	switch args[0] {
	case "hash-password":
		pw, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		pw = strings.TrimRight(pw, "\r\n")
		if pw == "" {
			return errors.New("empty password")
		}
		hash, err := httpserver.HashPassword(pw, httpserver.DefaultArgon2Params())
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, hash)
		return err
	case "issue-token":
		fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		user := fs.String("user", "", "user id carried by the token")
		ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		secret := getenv("AUTH_SECRET")
		switch {
		case secret == "":
			return errors.New("AUTH_SECRET is not set")
		case *user == "":
			return errors.New("-user is required")
		case *ttl <= 0:
			return errors.New("-ttl must be positive")
		}
		_, err := fmt.Fprintln(out, httpserver.NewTokenIssuer(secret).Issue(*user, *ttl))
		return err
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
