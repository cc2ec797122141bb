package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/schoolfees_backend/config"
	"bitbucket.org/mmdatafocus/schoolfees_backend/utils"
	"gorm.io/gorm/clause"
)

type Attendance struct {
	ID        int              `gorm:"primary_key" json:"id"`
	SchoolId  string           `gorm:"not null;uniqueIndex:idx_attendance_student_date,priority:1" json:"school_id" binding:"required"`
	StudentId int              `gorm:"not null;uniqueIndex:idx_attendance_student_date,priority:2" json:"student_id" binding:"required"`
	Date      time.Time        `gorm:"type:date;not null;uniqueIndex:idx_attendance_student_date,priority:3" json:"date" binding:"required"`
	ClassId   int              `gorm:"index;not null" json:"class_id"`
	SectionId int              `gorm:"default:0" json:"section_id"`
	Status    AttendanceStatus `gorm:"type:enum('PRESENT','ABSENT','LATE','EXCUSED');not null" json:"status"`
	Remarks   string           `gorm:"size:255" json:"remarks"`
	MarkedBy  int              `gorm:"not null" json:"marked_by"`
	Student   *Student         `json:"student"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type AttendanceEntry struct {
	StudentId int              `json:"student_id" binding:"required"`
	Status    AttendanceStatus `json:"status" binding:"required"`
	Remarks   string           `json:"remarks"`
}

type MarkAttendanceInput struct {
	ClassId   int                `json:"class_id" binding:"required"`
	SectionId int                `json:"section_id"`
	Date      time.Time          `json:"date" binding:"required"`
	Entries   []*AttendanceEntry `json:"entries" binding:"required,min=1"`
}

// MarkAttendance records one class's attendance for a day in a single batch.
// Re-marking the same student+date overwrites the earlier row.
func MarkAttendance(ctx context.Context, schoolId string, markedBy int, input *MarkAttendanceInput) ([]*Attendance, error) {
	if err := utils.ValidateResourceId[Class](ctx, schoolId, input.ClassId); err != nil {
		return nil, fmt.Errorf("class not found: %w", utils.ErrorRecordNotFound)
	}
	studentIds := make([]int, 0, len(input.Entries))
	for _, entry := range input.Entries {
		if !entry.Status.Valid() {
			return nil, errors.New("invalid attendance status")
		}
		studentIds = append(studentIds, entry.StudentId)
	}
	if err := utils.ValidateResourcesId[Student](ctx, schoolId, studentIds); err != nil {
		return nil, fmt.Errorf("student not found: %w", utils.ErrorRecordNotFound)
	}

	school, err := GetSchoolById(ctx, schoolId)
	if err != nil {
		return nil, err
	}
	date, err := utils.DateOnly(input.Date, school.Timezone)
	if err != nil {
		return nil, err
	}

	rows := make([]*Attendance, 0, len(input.Entries))
	for _, entry := range input.Entries {
		rows = append(rows, &Attendance{
			SchoolId:  schoolId,
			StudentId: entry.StudentId,
			Date:      date,
			ClassId:   input.ClassId,
			SectionId: input.SectionId,
			Status:    entry.Status,
			Remarks:   entry.Remarks,
			MarkedBy:  markedBy,
		})
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "school_id"}, {Name: "student_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "remarks", "marked_by", "class_id", "section_id"}),
	}).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAttendance returns a class's attendance for one day.
func ListAttendance(ctx context.Context, schoolId string, classId int, sectionId int, date time.Time) ([]*Attendance, error) {
	school, err := GetSchoolById(ctx, schoolId)
	if err != nil {
		return nil, err
	}
	day, err := utils.DateOnly(date, school.Timezone)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("school_id = ? AND class_id = ? AND date = ?", schoolId, classId, day)
	if sectionId > 0 {
		dbCtx = dbCtx.Where("section_id = ?", sectionId)
	}
	var rows []*Attendance
	if err := dbCtx.Preload("Student").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

type AttendanceSummary struct {
	StudentId    int `json:"student_id"`
	PresentCount int `json:"present_count"`
	AbsentCount  int `json:"absent_count"`
	LateCount    int `json:"late_count"`
	ExcusedCount int `json:"excused_count"`
	TotalDays    int `json:"total_days"`
}

// GetStudentAttendanceSummary counts a student's attendance rows per status in
// the given date range.
func GetStudentAttendanceSummary(ctx context.Context, schoolId string, studentId int, fromDate time.Time, toDate time.Time) (*AttendanceSummary, error) {
	if err := utils.ValidateResourceId[Student](ctx, schoolId, studentId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var rows []*Attendance
	if err := db.WithContext(ctx).
		Where("school_id = ? AND student_id = ? AND date >= ? AND date <= ?", schoolId, studentId, fromDate, toDate).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	summary := AttendanceSummary{StudentId: studentId, TotalDays: len(rows)}
	for _, row := range rows {
		switch row.Status {
		case AttendanceStatusPresent:
			summary.PresentCount++
		case AttendanceStatusAbsent:
			summary.AbsentCount++
		case AttendanceStatusLate:
			summary.LateCount++
		case AttendanceStatusExcused:
			summary.ExcusedCount++
		}
	}
	return &summary, nil
}
