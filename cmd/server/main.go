package main

import "eagletask/internal/app"

// @title           EagleTask API
// @version         1.0
// @description     Synchronizes Canvas LMS assignments into Todoist and keeps shared subtasks consistent across participants.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	app.Run()
}
