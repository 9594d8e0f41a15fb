package handlers

const (
	// Multipart and query parameters
	formFieldFile     = "file"
	paramTemplates    = "templates"
	paramLimit        = "limit"
	uploadDirPattern  = "scoreviz-upload-*"
	defaultUploadName = "upload"
	bytesPerMegabyte  = 1 << 20
	imagesRoute       = "/images"
	s3URIPrefix       = "s3://"
)
