// The main package for the newsrank executable.
package main

import "github.com/JakeFAU/newsrank-crawler/cmd"

func main() {
	cmd.Execute()
}
