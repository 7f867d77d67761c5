package main

import "filmcrew-backend/cmd"

func main() {
	cmd.Run()
}
