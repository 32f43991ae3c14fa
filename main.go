/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/shoplite/apiserver/cmd"

func main() {
	cmd.Execute()
}
