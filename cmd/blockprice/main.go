package main

import "github.com/vietddude/blockprice/internal/cli"

func main() {
	cli.Execute()
}
