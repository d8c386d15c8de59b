package main

import "craftsmen_front/internal/app"

func main() {
	app.Run()
}
