package basins

import (
	"bytes"
	"strings"

	"github.com/ctessum/geom/encoding/shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kass/go-forcing-link/pkg/models"
)

// ReadShapefile reads one basin per record of the shapefile at path. Only the
// attribute table is used; centroids come from the configured x/y fields.
// Field names are matched case-insensitively against the DBF header.
func ReadShapefile(path string, names FieldNames) ([]*models.Basin, error) {
	log := zap.L().With(zap.String("path", path))

	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, eris.Wrapf(err, "basins: open shapefile %s", path)
	}
	defer d.Close()

	// DBF header name for every configured name
	header := make(map[string]string)
	for _, f := range d.Fields() {
		name := shpFieldName(f.Name)
		header[strings.ToUpper(name)] = name
	}
	wanted := names.List()
	columns := make([]string, len(wanted))
	for k, n := range wanted {
		col, ok := header[strings.ToUpper(n)]
		if !ok {
			return nil, &MalformedFeatureError{Field: n, Err: errMissingField}
		}
		columns[k] = col
	}

	var features []Feature
	for {
		_, row, more := d.DecodeRowFields(columns...)
		if !more {
			break
		}
		f := make(Fields, len(wanted))
		for k, n := range wanted {
			if v, ok := row[columns[k]]; ok {
				f[n] = v
			}
		}
		features = append(features, f)
	}
	if err := d.Error(); err != nil {
		return nil, eris.Wrapf(err, "basins: decode shapefile %s", path)
	}

	basins, err := Collect(features, names)
	if err != nil {
		return nil, err
	}
	log.Info("read basins", zap.Int("count", len(basins)))
	return basins, nil
}

// shpFieldName converts a NUL padded DBF field name to a string
func shpFieldName(name [11]byte) string {
	if i := bytes.IndexByte(name[:], 0); i >= 0 {
		return string(name[:i])
	}
	return string(name[:])
}
