package app

import (
	"gorm.io/gorm"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/repos"
)

type Repos struct {
	Person     repos.PersonRepo
	Volunteer  repos.VolunteerRepo
	Assignment repos.AssignmentRepo
	Attendance repos.AttendanceRepo
	Program    repos.ProgramRepo
	Source     repos.SourceRepo
	ReviewFlag repos.ReviewFlagRepo
	EventLog   repos.EventLogRepo
}

func wireRepos(clients Clients, ledgerDB *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Person:     repos.NewPersonRepo(clients.Store, clients.Schema, log),
		Volunteer:  repos.NewVolunteerRepo(clients.Store, clients.Schema, log),
		Assignment: repos.NewAssignmentRepo(clients.Store, clients.Schema, log),
		Attendance: repos.NewAttendanceRepo(clients.Store, clients.Schema, log),
		Program:    repos.NewProgramRepo(clients.Store, clients.Schema, log),
		Source:     repos.NewSourceRepo(clients.Store, clients.Schema, log),
		ReviewFlag: repos.NewReviewFlagRepo(ledgerDB, log),
		EventLog:   repos.NewEventLogRepo(ledgerDB, log),
	}
}
