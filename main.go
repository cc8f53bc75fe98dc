package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/coursepulse/internal/app"
)

// @title           CoursePulse API
// @version         1.0
// @description     CoursePulse aggregates learner progress, tracks deadline urgency and fans out LMS notifications.
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	svc := app.New()
	<-svc.Start()

	// delivery workers may hold a claimed batch; give them time to finish it
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	svc.Stop(ctx)
}
