package main

import "github.com/MathieuBartozzi/resultats-efe-maroc-new-app/cmd"

func main() {
	cmd.Execute()
}
