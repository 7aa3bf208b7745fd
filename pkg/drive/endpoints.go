package drive

import (
	"fmt"
	"net/url"
)

// BaseURL is the Google Drive v3 API root.
const BaseURL = "https://www.googleapis.com/drive/v3"

// itemFields selects the item fields the pipeline consumes.
const itemFields = "id,name,originalFilename,mimeType,size,md5Checksum,modifiedTime,parents,capabilities/canDownload,shortcutDetails"

// defaultPageSize is the listing page size requested from the API.
const defaultPageSize = 1000

// listChildrenURL builds the files.list URL for one page of a folder's
// children.
func listChildrenURL(baseURL, folderID, pageToken string) string {
	params := url.Values{}
	params.Set("q", fmt.Sprintf("'%s' in parents and trashed = false", folderID))
	params.Set("fields", "nextPageToken,files("+itemFields+")")
	params.Set("pageSize", fmt.Sprintf("%d", defaultPageSize))
	params.Set("supportsAllDrives", "true")
	params.Set("includeItemsFromAllDrives", "true")
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	return baseURL + "/files?" + params.Encode()
}

// getItemURL builds the files.get URL for a single item's metadata.
func getItemURL(baseURL, id string) string {
	params := url.Values{}
	params.Set("fields", itemFields)
	params.Set("supportsAllDrives", "true")
	return baseURL + "/files/" + url.PathEscape(id) + "?" + params.Encode()
}

// downloadURL builds the files.get?alt=media URL for an item's content.
func downloadURL(baseURL, id string) string {
	params := url.Values{}
	params.Set("alt", "media")
	params.Set("supportsAllDrives", "true")
	return baseURL + "/files/" + url.PathEscape(id) + "?" + params.Encode()
}
