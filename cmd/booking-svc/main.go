package main

import (
	"github.com/bookinglabs/booking-pipeline/internal/app/bookingapp"
	"github.com/bookinglabs/booking-pipeline/internal/config"
)

func main() {
	config.MustInit("/etc/booking-svc")
	bookingapp.MustNewApp().Run()
}
