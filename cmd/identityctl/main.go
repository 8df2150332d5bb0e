package main

import "github.com/prepstack/identity-core/cmd/identityctl/cmd"

func main() {
	cmd.Execute()
}
