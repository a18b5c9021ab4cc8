/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/listingdesk/listingdesk/cmd"

func main() {
	cmd.Execute()
}
