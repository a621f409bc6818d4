// Package shared holds code used across packages that does not belong to a
// single layer.
//
// The testutil subpackage provides:
//
//   - BufferedSlogHandler and NewTestLogger, to assert on structured log output
//   - CampaignCSV and BuildCSV, to build input files
//   - MultipartBody, to build upload requests for handler tests
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    logger, logs := testutil.NewTestLogger(t)
//	    body, contentType := testutil.MultipartBody(t, testutil.MultipartFile{
//	        Name:    "campaigns.csv",
//	        Content: testutil.CampaignCSV(t, "123/Spring Sale"),
//	    })
//	    // ...
//	    testutil.AssertNoErrors(t, logs)
//	}
package shared
