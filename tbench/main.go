// Command tbench runs the randomized FIFO testbench.
package main

import "github.com/sarchlab/rtltb/tbench/cmd"

func main() {
	cmd.Execute()
}
