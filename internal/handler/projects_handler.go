package handler

import (
	"net/http"

	"github.com/jengatrack/jengatrack-api/internal/domain"
	"github.com/jengatrack/jengatrack-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Projects Handlers
// ============================================================

func listProjectsHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects")
		defer span.End()

		projects, err := svc.ListProjects(ctx, AccountIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(projects))
	}
}

func createProjectHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /projects")
		defer span.End()

		var req domain.ProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		project, err := svc.CreateProject(ctx, AccountIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, project)
	}
}

func getProjectHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}")
		defer span.End()

		project, err := svc.GetProject(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, project)
	}
}

func updateProjectHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /projects/{projectId}")
		defer span.End()

		var req domain.ProjectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		project, err := svc.UpdateProject(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, project)
	}
}

func projectSummaryHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/summary")
		defer span.End()

		summary, err := svc.ProjectSummary(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

// ============================================================
// Tasks Handlers
// ============================================================

func listTasksHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/tasks")
		defer span.End()

		tasks, err := svc.ListTasks(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(tasks))
	}
}

func createTaskHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /projects/{projectId}/tasks")
		defer span.End()

		var req domain.TaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		task, err := svc.CreateTask(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, task)
	}
}

func updateTaskHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /tasks/{taskId}")
		defer span.End()

		var req domain.TaskRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		task, err := svc.UpdateTask(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "taskId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, task)
	}
}

// ============================================================
// Milestones Handlers
// ============================================================

func listMilestonesHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/milestones")
		defer span.End()

		milestones, err := svc.ListMilestones(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(milestones))
	}
}

func createMilestoneHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /projects/{projectId}/milestones")
		defer span.End()

		var req domain.MilestoneRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		m, err := svc.CreateMilestone(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func updateMilestoneHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /milestones/{milestoneId}")
		defer span.End()

		var req domain.MilestoneRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		m, err := svc.UpdateMilestone(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "milestoneId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// ============================================================
// Inventory Handlers
// ============================================================

func listInventoryHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /projects/{projectId}/inventory")
		defer span.End()

		items, err := svc.ListInventory(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.NewListResponse(items))
	}
}

func createInventoryHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /projects/{projectId}/inventory")
		defer span.End()

		var req domain.InventoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		item, err := svc.CreateInventoryItem(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "projectId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	}
}

func updateInventoryHandler(svc *service.ProjectService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /inventory/{itemId}")
		defer span.End()

		var req domain.InventoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		item, err := svc.UpdateInventoryItem(ctx, AccountIDFromContext(ctx), chi.URLParam(r, "itemId"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, item)
	}
}
