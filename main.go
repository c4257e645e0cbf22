package main

import "github.com/stanzaworks/stanza/cmd"

func main() {
	cmd.Execute()
}
