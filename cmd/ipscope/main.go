package main

import (
	// Register geo providers via side-effects
	_ "ipscope/internal/geo"
	_ "ipscope/internal/geoip"
)

func main() {
	Execute()
}
