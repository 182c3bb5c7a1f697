package handlers

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"

	"github.com/kozaktomas/facetrack/internal/constants"
	"github.com/kozaktomas/facetrack/internal/sample"
)

// uploadError is a client error in an uploaded form, with its HTTP status.
type uploadError struct {
	status  int
	message string
}

func (e *uploadError) Error() string { return e.message }

func badUpload(message string) error {
	return &uploadError{status: http.StatusBadRequest, message: message}
}

// uploadStatus maps an error from parseFrame or readImage to a status code.
func uploadStatus(err error) int {
	var ue *uploadError
	if errors.As(err, &ue) {
		return ue.status
	}
	return http.StatusBadRequest
}

// readImage decodes the named multipart file field as a camera frame.
func readImage(r *http.Request, field string) (image.Image, error) {
	return readUpload(r, field, func(f io.Reader) (image.Image, error) {
		img, _, err := sample.DecodeImage(f)
		return img, err
	})
}

// readStill decodes the named multipart file field as an enrollment photo,
// honouring its EXIF orientation.
func readStill(r *http.Request, field string) (image.Image, error) {
	return readUpload(r, field, sample.DecodeStill)
}

func readUpload(r *http.Request, field string, decode func(io.Reader) (image.Image, error)) (image.Image, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, badUpload(fmt.Sprintf("%s is required", field))
	}
	defer file.Close()

	img, err := decode(file)
	switch {
	case errors.Is(err, sample.ErrImageTooLarge):
		return nil, &uploadError{
			status:  http.StatusRequestEntityTooLarge,
			message: fmt.Sprintf("image exceeds %d megapixels", constants.MaxFramePixels/1_000_000),
		}
	case err != nil:
		return nil, badUpload("unsupported or corrupt image")
	}
	return img, nil
}

// parseFrame reads an uploaded camera frame. The form carries the image, its
// rotation in degrees and whether it is mirrored.
func parseFrame(r *http.Request, mirroredDefault bool) (sample.Frame, error) {
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		return sample.Frame{}, badUpload(errInvalidMultipart)
	}

	img, err := readImage(r, "image")
	if err != nil {
		return sample.Frame{}, err
	}

	frame := sample.Frame{Image: img, Mirrored: mirroredDefault}
	if v := r.FormValue("rotation"); v != "" {
		deg, err := strconv.Atoi(v)
		if err != nil {
			return sample.Frame{}, badUpload("rotation must be an integer number of degrees")
		}
		frame.RotationDegrees = deg
	}
	if v := r.FormValue("mirrored"); v != "" {
		m, err := strconv.ParseBool(v)
		if err != nil {
			return sample.Frame{}, badUpload("mirrored must be a boolean")
		}
		frame.Mirrored = m
	}
	return frame, nil
}
