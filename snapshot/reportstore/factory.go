package reportstore

import (
	"context"
	"fmt"
	"os"

	"github.com/biotmed/biot-sdk-go/snapshot"
)

// Driver names a report store backend.
type Driver string

const (
	DriverMemory     Driver = "memory"
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

// Open selects a report store implementation using environment variables.
//
//	BIOT_REPORT_STORE_DRIVER: fs|s3|memory (default fs)
//	BIOT_REPORT_STORE_FS_ROOT: directory root when driver=fs (default ./reports)
//	(S3 specific variables documented in s3.go)
func Open(ctx context.Context) (snapshot.ReportStore, error) {
	driver := os.Getenv("BIOT_REPORT_STORE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}

	switch Driver(driver) {
	case DriverFilesystem:
		root := os.Getenv("BIOT_REPORT_STORE_FS_ROOT")
		if root == "" {
			root = "./reports"
		}
		return NewFilesystemStore(root)
	case DriverS3:
		return OpenS3FromEnv(ctx)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown report store driver %s", driver)
	}
}
