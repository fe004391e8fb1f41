package main

import "github.com/widgetlabs/widget-api/cmd"

func main() {
	cmd.Execute()
}
