package main

import "github.com/siherrmann/pagegraph/cmd/pagegraph/cmd"

func main() {
	cmd.Execute()
}
