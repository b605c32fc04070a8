// Command docreel turns documents into short-form videos, either as a
// one-shot CLI run or as an HTTP job service.
package main

func main() {
	Execute()
}
