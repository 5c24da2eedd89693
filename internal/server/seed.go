package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/digitalbuho/buho/internal/auth"
	"github.com/digitalbuho/buho/internal/db"
	"github.com/digitalbuho/buho/internal/models"
	"github.com/sirupsen/logrus"
)

// Admin is the account Seed guarantees
type Admin struct {
	Email    string
	Username string
	Password string
}

type demoTask struct {
	title, description string
	priority           models.Priority
	status             models.Status
	dueInDays          int
}

type demoProject struct {
	title, description string
	priority           models.Priority
	status             models.Status
	progress           int
	dueInDays          int
	tasks              []demoTask
}

var demoProjects = []demoProject{
	{
		title: "Sistema de Gestión de Tareas", description: "Aplicación web para gestión de tareas y proyectos",
		priority: models.PriorityHigh, status: models.StatusInProgress, progress: 60, dueInDays: 30,
		tasks: []demoTask{
			{"Diseñar interfaz de usuario", "Crear mockups para la interfaz de usuario principal", models.PriorityMedium, models.StatusPending, 10},
			{"Implementar autenticación", "Integrar sistema de login con JWT", models.PriorityHigh, models.StatusInProgress, 5},
			{"Configurar base de datos", "Configurar la base de datos y migrar datos existentes", models.PriorityHigh, models.StatusCompleted, -5},
		},
	},
	{
		title: "Rediseño de Sitio Web Corporativo", description: "Actualización completa del sitio web de la empresa",
		priority: models.PriorityMedium, status: models.StatusPending, progress: 25, dueInDays: 45,
		tasks: []demoTask{
			{"Desarrollo de API REST", "Implementar endpoints para recursos principales", models.PriorityMedium, models.StatusInProgress, 15},
			{"Testing de seguridad", "Realizar pruebas de penetración en la API", models.PriorityUrgent, models.StatusPending, 20},
			{"Optimización de consultas", "Mejorar rendimiento de consultas SQL críticas", models.PriorityHigh, models.StatusPending, 12},
		},
	},
	{
		title: "Aplicación Móvil de Ventas", description: "Desarrollo de app móvil para equipo de ventas",
		priority: models.PriorityUrgent, status: models.StatusPending, progress: 10, dueInDays: 60,
		tasks: []demoTask{
			{"Documentación técnica", "Crear documentación para desarrolladores", models.PriorityLow, models.StatusPending, 30},
			{"Optimización de rendimiento", "Mejorar tiempos de carga en páginas críticas", models.PriorityHigh, models.StatusPending, 25},
			{"Implementar notificaciones push", "Integrar sistema de notificaciones en tiempo real", models.PriorityMedium, models.StatusPending, 18},
			{"Diseño responsive", "Asegurar compatibilidad con todos los dispositivos", models.PriorityHigh, models.StatusInProgress, 15},
		},
	},
}

// Seed makes sure the admin account exists with staff and superuser flags,
// then fills an empty project table with demo projects and tasks.
func Seed(store *db.DB, admin Admin, log *logrus.Entry) error {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	owner, err := ensureAdmin(store, admin)
	if err != nil {
		return err
	}
	log.WithField("email", owner.Email).Info("admin account ready")

	count, err := store.ProjectCount()
	if err != nil {
		return err
	}
	if count > 0 {
		log.WithField("projects", count).Info("projects exist, skipping demo data")
		return nil
	}

	today := models.NewDate(time.Now())
	var tasks int
	for _, dp := range demoProjects {
		project, err := store.CreateProject(models.ProjectInput{
			Title:         dp.title,
			Description:   dp.description,
			Priority:      dp.priority,
			Status:        dp.status,
			Progress:      dp.progress,
			DueDate:       models.NewDate(today.AddDate(0, 0, dp.dueInDays)),
			ResponsibleID: models.Ref(owner.ID),
		}, owner.ID)
		if err != nil {
			return fmt.Errorf("seed project %q: %w", dp.title, err)
		}
		for _, dt := range dp.tasks {
			_, err := store.CreateTask(models.TaskInput{
				Title:       dt.title,
				Description: dt.description,
				Priority:    dt.priority,
				Status:      dt.status,
				DueDate:     models.NewDate(today.AddDate(0, 0, dt.dueInDays)),
				ProjectID:   models.Ref(project.ID),
				AssigneeID:  models.Ref(owner.ID),
			}, owner.ID)
			if err != nil {
				return fmt.Errorf("seed task %q: %w", dt.title, err)
			}
			tasks++
		}
	}
	log.WithFields(logrus.Fields{"projects": len(demoProjects), "tasks": tasks}).Info("demo data created")
	return nil
}

func ensureAdmin(store *db.DB, admin Admin) (*models.User, error) {
	if admin.Email == "" || admin.Password == "" {
		return nil, errors.New("seed: admin email and password are required")
	}
	if admin.Username == "" {
		admin.Username = "admin"
	}

	u, _, err := store.GetUserByEmail(admin.Email)
	switch {
	case errors.Is(err, db.ErrNotFound):
		hash, err := auth.HashPassword(admin.Password)
		if err != nil {
			return nil, err
		}
		return store.CreateUser(models.User{
			Email:       admin.Email,
			Username:    admin.Username,
			IsStaff:     true,
			IsSuperuser: true,
		}, hash)
	case err != nil:
		return nil, err
	}

	if u.IsStaff && u.IsSuperuser {
		return u, nil
	}
	u.IsStaff, u.IsSuperuser = true, true
	if err := store.UpdateUser(*u); err != nil {
		return nil, err
	}
	return u, nil
}
