package main

import (
	"staysync/cmd"

	// Property timezones must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"
)

func main() {
	cmd.Execute()
}
