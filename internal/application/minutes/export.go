package minutes

import (
	"context"
	"encoding/json"
	"io"

	"github.com/xuri/excelize/v2"

	"meeting-minutes-api/internal/domain/entity"
	apperrors "meeting-minutes-api/pkg/errors"
	"meeting-minutes-api/pkg/logger"
)

const exportSheet = "minutes"

var exportHeader = []any{"id", "title", "created_at", "analysis", "improvement", "formatted_transcript", "mindmap"}

// Export 将全部议事录写为 XLSX 工作簿
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	if err := WriteWorkbook(w, list); err != nil {
		return apperrors.Wrap(err, apperrors.CodeExportFailed, "failed to export minutes")
	}
	logger.Info(ctx, "minutes exported", "count", len(list))
	return nil
}

// WriteWorkbook 每条议事录一行，首行为表头
func WriteWorkbook(w io.Writer, list []*entity.Minute) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return err
	}

	for i, m := range list {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		mindmap, err := json.Marshal(m.MindMap)
		if err != nil {
			return err
		}
		row := []any{
			m.ID,
			m.Title,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			m.Analysis,
			m.Improvement,
			m.FormattedTranscript,
			string(mindmap),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(exportSheet, "B", "B", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(exportSheet, "D", "F", 60); err != nil {
		return err
	}
	return f.Write(w)
}
