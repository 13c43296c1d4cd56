package main

import "github.com/leakgate/leakgate/cmd/leakgate"

func main() {
	leakgate.Execute()
}
