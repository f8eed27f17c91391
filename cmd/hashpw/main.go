// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command hashpw prints the bcrypt hash to use as ADMIN_PASSWORD_HASH.
//
// The password is read from the first line of standard input:
//
//	echo -n 'secret' | go run ./cmd/hashpw
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/taibuivan/tikkun/internal/platform/sec"
)

func main() {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		fmt.Fprintln(os.Stderr, "hashpw: empty password on stdin", err)
		os.Exit(1)
	}

	hash, err := sec.HashPassword(password)
	if err != nil {
		fmt.Fprintln(os.Stderr, "hashpw:", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
