package main

import "github.com/frahmantamala/licensestore/cmd"

func main() {
	cmd.Execute()
}
