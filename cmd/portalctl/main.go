package main

import "github.com/atlasov/club_portal/internal/cli"

func main() {
	cli.Execute()
}
