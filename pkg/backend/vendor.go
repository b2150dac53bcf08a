package backend

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
)

// Document is an uploaded vendor document already read and type-checked.
type Document struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// SubmitVendorRequest forwards a vendor application as a multipart form.
func (c *Client) SubmitVendorRequest(ctx context.Context, token string, fields map[string]string, docs []Document) (VendorRequestStatus, error) {
	body, contentType, err := encodeMultipart(fields, docs)
	if err != nil {
		return VendorRequestStatus{}, err
	}
	var out VendorRequestStatus
	err = c.do(ctx, request{
		endpoint:    "vendor_request",
		method:      http.MethodPost,
		path:        "/users/vendor-request",
		rawBody:     body,
		contentType: contentType,
		token:       token,
	}, &out)
	return out, err
}

func encodeMultipart(fields map[string]string, docs []Document) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}
	for _, doc := range docs {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, doc.Field, doc.Filename))
		header.Set("Content-Type", doc.ContentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("create part %s: %w", doc.Field, err)
		}
		if _, err := part.Write(doc.Content); err != nil {
			return nil, "", fmt.Errorf("write part %s: %w", doc.Field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf, writer.FormDataContentType(), nil
}
