package routes

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/chenraccah/semantic-network-analyzer/pkg/loader"
	"github.com/chenraccah/semantic-network-analyzer/pkg/tier"
)

const defaultPreviewRows = 5

// PreviewFileHandler shows an uploaded tabular file's structure so the
// client can pick the text column (multipart/form-data)
func PreviewFileHandler(c echo.Context) error {
	type previewResponse struct {
		Success           bool                `json:"success"`
		Filename          string              `json:"filename"`
		NumRows           int                 `json:"num_rows"`
		NumColumns        int                 `json:"num_columns"`
		Columns           []string            `json:"columns"`
		Preview           []map[string]string `json:"preview"`
		TextColumnPreview []string            `json:"text_column_preview"`
	}

	profile, errResp := currentProfile(c)
	if profile == nil {
		return errResp
	}
	limits := tier.LimitsFor(profile.Tier)

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file provided"})
	}

	numRows := defaultPreviewRows
	if raw := c.FormValue("num_rows"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			numRows = v
		}
	}

	content, err := readUpload(file, limits)
	if err != nil {
		return uploadErrorResponse(c, err)
	}
	src, err := uploadedSource("preview", file.Filename, content, textColumnFromForm(c))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	previewer, ok := src.Loader.(loader.Previewer)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Preview is only available for tabular files"})
	}
	preview, err := previewer.GetPreview(c.Request().Context(), src, numRows)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	rows := make([]map[string]string, 0, len(preview.Rows))
	for _, row := range preview.Rows {
		record := make(map[string]string, len(preview.Columns))
		for i, col := range preview.Columns {
			if i < len(row) {
				record[col] = row[i]
			} else {
				record[col] = ""
			}
		}
		rows = append(rows, record)
	}

	columnPreview := preview.ColumnPreview
	if columnPreview == nil {
		columnPreview = []string{}
	}

	return c.JSON(http.StatusOK, previewResponse{
		Success:           true,
		Filename:          file.Filename,
		NumRows:           preview.TotalRows,
		NumColumns:        len(preview.Columns),
		Columns:           preview.Columns,
		Preview:           rows,
		TextColumnPreview: columnPreview,
	})
}
