package main

import (
	"github.com/bookinglabs/booking-pipeline/internal/app/auditapp"
	"github.com/bookinglabs/booking-pipeline/internal/config"
)

func main() {
	config.MustInit("/etc/booking-audit-svc")
	auditapp.MustNewApp().Run()
}
