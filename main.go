package main

import (
	"log"

	"github.com/resqlink/resqlink/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
