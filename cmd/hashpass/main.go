package main

import (
	"fmt"
	"os"

	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/auth"
	"github.com/willcastro123/mvp-triagem-ansiedade-sub000/internal/util"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hashpass <password>")
		os.Exit(1)
	}

	if err := util.ValidatePassword(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "senha rejeitada: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.Hash(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(hash)
}
