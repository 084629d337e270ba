package checks

import (
	"fmt"
	"reflect"
	"strings"

	"staysync/core/database"

	"gorm.io/gorm"
)

// SchemaReport is the result of comparing the gorm models with the live schema.
type SchemaReport struct {
	Driver  string                 `json:"driver"`
	Matched bool                   `json:"matched"`
	Tables  map[string]TableReport `json:"tables"`
	Errors  []string               `json:"errors"`
}

type TableReport struct {
	MissingColumns []string `json:"missing_columns"`
	TypeMismatches []string `json:"type_mismatches"`
	Status         string   `json:"status"` // "ok", "error"
}

type tabler interface {
	TableName() string
}

// CheckSchema verifies that every column declared on models exists with a compatible type.
func CheckSchema(db *gorm.DB, models []any) (*SchemaReport, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}

	report := &SchemaReport{
		Driver:  db.Dialector.Name(),
		Tables:  make(map[string]TableReport),
		Matched: true,
		Errors:  []string{},
	}

	for _, model := range models {
		t, ok := model.(tabler)
		if !ok {
			return nil, fmt.Errorf("model %T does not implement TableName", model)
		}
		tableName := t.TableName()

		actualCols, err := database.GetTableColumns(db, tableName)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("Failed to inspect table %s: %v", tableName, err))
			report.Matched = false
			continue
		}
		if len(actualCols) == 0 {
			report.Errors = append(report.Errors, fmt.Sprintf("Table %s does not exist", tableName))
			report.Matched = false
			continue
		}

		tbl := compareTable(reflect.TypeOf(model), actualCols)
		if tbl.Status != "ok" {
			report.Matched = false
		}
		report.Tables[tableName] = tbl
	}

	return report, nil
}

func compareTable(typ reflect.Type, actualCols []database.ColumnInfo) TableReport {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}

	tbl := TableReport{
		MissingColumns: []string{},
		TypeMismatches: []string{},
		Status:         "ok",
	}

	actual := make(map[string]database.ColumnInfo, len(actualCols))
	for _, col := range actualCols {
		actual[col.Field] = col
	}

	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("gorm")
		colName := parseGormColumn(tag)
		if colName == "" {
			continue
		}

		col, exists := actual[colName]
		if !exists {
			tbl.MissingColumns = append(tbl.MissingColumns, colName)
			tbl.Status = "error"
			continue
		}

		// Only columns with an explicit type are compared. The check is a
		// substring match so "varchar(36)" accepts "varchar(36) collate ...".
		expType := strings.ToLower(parseGormType(tag))
		if expType != "" && !strings.Contains(col.Type, expType) {
			tbl.TypeMismatches = append(tbl.TypeMismatches, fmt.Sprintf("%s: expected %s, got %s", colName, expType, col.Type))
			tbl.Status = "error"
		}
	}
	return tbl
}

// Helpers to parse simple GORM tags
func parseGormColumn(tag string) string {
	return tagValue(tag, "column:")
}

func parseGormType(tag string) string {
	return tagValue(tag, "type:")
}

func tagValue(tag, prefix string) string {
	for _, p := range strings.Split(tag, ";") {
		if strings.HasPrefix(p, prefix) {
			return strings.TrimPrefix(p, prefix)
		}
	}
	return ""
}
