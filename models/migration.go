package models

import (
	"log"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&School{}, &User{},
		&Class{}, &Section{}, &Subject{}, &Student{},
		&FeeStructure{}, &FeeInvoice{}, &FeePayment{}, &FeeHandover{},
		&Attendance{}, &LeaveRequest{},
		&Announcement{}, &Message{}, &NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
