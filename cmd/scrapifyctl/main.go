// Command scrapifyctl runs operator tasks against the Scrapify database.
package main

func main() {
	Execute()
}
