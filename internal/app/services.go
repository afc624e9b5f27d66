package app

import (
	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
	"github.com/gracechapel/outreach-backend/internal/services"
)

type Services struct {
	Matcher    *services.Matcher
	Balancer   *services.AssignmentBalancer
	Attendance *services.AttendanceWriter
	Rollups    *services.RollupWriter
	Programs   *services.ProgramWriter
	Reconciler *services.Reconciler
	Notifier   *services.AdminNotifier
	Dispatcher *services.Dispatcher
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	matcher := services.NewMatcher(reposet.Person, log)
	balancer := services.NewAssignmentBalancer(reposet.Assignment, reposet.Volunteer, cfg.FollowUpCapacity, cfg.FollowUpDue, log)
	attendance := services.NewAttendanceWriter(reposet.Attendance, log)
	rollups := services.NewRollupWriter(reposet.Person, reposet.Attendance, reposet.Assignment, log)
	programs := services.NewProgramWriter(reposet.Program, reposet.Person, log)

	reconciler := services.NewReconciler(
		matcher,
		reposet.Person,
		reposet.Source,
		balancer,
		attendance,
		rollups,
		programs,
		clients.Locker,
		cfg.LockTTL,
		log,
	)

	notifier := services.NewAdminNotifier(clients.Mail, cfg.AdminEmail, log)

	dispatcher := services.NewDispatcher(
		reconciler,
		reposet.EventLog,
		reposet.ReviewFlag,
		notifier,
		cfg.Workers,
		cfg.QueueSize,
		cfg.EventTimeout,
		log,
	)

	return Services{
		Matcher:    matcher,
		Balancer:   balancer,
		Attendance: attendance,
		Rollups:    rollups,
		Programs:   programs,
		Reconciler: reconciler,
		Notifier:   notifier,
		Dispatcher: dispatcher,
	}
}
