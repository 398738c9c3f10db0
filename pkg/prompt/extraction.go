package prompt

import "strings"

const extractionInstructions = `Based on this conversation exchange with a patient with dementia, extract any important information to remember:

Patient: %PATIENT%
Lumora: %ASSISTANT%

Extract and categorize the following (respond in JSON format only):
1. Personal information (name, family members, occupation, etc.)
2. Important memories or stories shared
3. Preferences mentioned (likes/dislikes)
4. Topics discussed
5. Emotional state

JSON format:
{
    "personal_info": {},
    "memories": [],
    "preferences": {},
    "topics": [],
    "emotional_state": ""
}`

// Extraction builds the stateless prompt that asks the model to distill one
// exchange into the five structured slots.
func Extraction(patientText, assistantText string) string {
	out := strings.ReplaceAll(extractionInstructions, "%PATIENT%", patientText)
	return strings.ReplaceAll(out, "%ASSISTANT%", assistantText)
}
