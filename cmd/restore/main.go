// Command restore validates clinic backups and imports them into a tenant
// from the command line.
package main

func main() {
	Execute()
}
