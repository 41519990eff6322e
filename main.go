// The main package for the stationcrawler executable.
package main

import (
	"os"

	"github.com/JakeFAU/station-crawler/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
