package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tutordesk/internal/audit"
	"tutordesk/internal/directory"
)

// --- Students ---

func (h Handlers) ListStudents(c *gin.Context) {
	students, err := h.Directory.ListStudents(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h Handlers) GetStudent(c *gin.Context) {
	student, err := h.Directory.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, student)
}

func (h Handlers) CreateStudent(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	var req directory.CreateStudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	student, err := h.Directory.CreateStudent(c.Request.Context(), req, name)
	if err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionStudentCreate,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		TargetID:    student.ID,
		TargetName:  student.Name,
	})
	c.JSON(http.StatusCreated, student)
}

func (h Handlers) UpdateStudent(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	var req directory.UpdateStudentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	student, err := h.Directory.UpdateStudent(c.Request.Context(), c.Param("id"), req, name)
	if err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionStudentUpdate,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		TargetID:    student.ID,
		TargetName:  student.Name,
	})
	c.JSON(http.StatusOK, student)
}

func (h Handlers) DeleteStudent(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	id := c.Param("id")
	student, err := h.Directory.GetStudent(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Directory.DeleteStudent(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionStudentDelete,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		TargetID:    student.ID,
		TargetName:  student.Name,
	})
	c.Status(http.StatusNoContent)
}

// --- Staff ---

func (h Handlers) ListStaff(c *gin.Context) {
	staff, err := h.Directory.ListStaff(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff})
}

func (h Handlers) CreateStaff(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	var req directory.CreateStaffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	staff, err := h.Directory.CreateStaff(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionStaffCreate,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		TargetID:    staff.ID,
		TargetName:  staff.Name,
	})
	c.JSON(http.StatusCreated, staff)
}

func (h Handlers) UpdateStaff(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	var req directory.UpdateStaffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}

	staff, err := h.Directory.UpdateStaff(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionStaffUpdate,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		TargetID:    staff.ID,
		TargetName:  staff.Name,
	})
	c.JSON(http.StatusOK, staff)
}

func (h Handlers) DeleteStaff(c *gin.Context) {
	userID, name, role, ok := identity(c)
	if !ok {
		return
	}

	id := c.Param("id")
	if id == userID {
		badRequest(c, "cannot delete your own account")
		return
	}
	staff, err := h.Directory.GetStaff(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.Directory.DeleteStaff(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}

	h.Audit.Log(c.Request.Context(), audit.Event{
		Action:      audit.ActionStaffDelete,
		ActorUserID: userID,
		ActorName:   name,
		ActorRole:   role,
		TargetID:    staff.ID,
		TargetName:  staff.Name,
	})
	c.Status(http.StatusNoContent)
}
